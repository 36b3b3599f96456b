package common

// PackageName is used as the metrics namespace.
const PackageName = "exampledb"

// Version is set at build time: -ldflags "-X github.com/ruteri/exampledb/common.Version=..."
var Version = "dev"
