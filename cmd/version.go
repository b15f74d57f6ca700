// cmd/version.go
package cmd

// Version is the application version.
// Set at build time via ldflags:
//
//	go build -ldflags "-X github.com/xkilldash9x/headerkit/cmd.Version=1.0.0"
var Version = "0.1.0"
