// Package payload provides the embedded package archives and their manifests.
package payload

import "embed"

// Packages contains every package group shipped with the installer.
// Each group directory holds one .list manifest and the .deb archives it names.
//
//go:embed all:packages
var Packages embed.FS

// Root is the directory inside Packages that holds the package groups.
const Root = "packages"
