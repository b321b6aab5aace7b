package common

// Version is set at build time via -ldflags "-X github.com/ruteri/zkkb/common.Version=..."
var Version = "dev"

// PackageName prefixes metric names and default log service tags.
const PackageName = "zkkb"
