//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// pandocImage must match convert.DefaultImage.
const pandocImage = "pandoc/core:3.5"

// Pandoc pulls the pandoc image used by the container backend. It uses
// podman when docker is not installed.
func Pandoc() error {
	runtime := "docker"
	if _, err := sh.Output("docker", "--version"); err != nil {
		runtime = "podman"
	}
	fmt.Printf("[pandoc] pulling %s with %s\n", pandocImage, runtime)
	return sh.RunV(runtime, "pull", pandocImage)
}

// Cite rewrites citations in the Markdown files of $KB_DIR against the
// master bibliography in $KB_MASTER.
func Cite() error {
	mg.Deps(Build)
	dir, master := os.Getenv("KB_DIR"), os.Getenv("KB_MASTER")
	if dir == "" || master == "" {
		return fmt.Errorf("set KB_DIR and KB_MASTER")
	}
	return sh.RunV("bin/kbconvert", "cite", "--recursive", "--master", master, dir)
}

// Report prints the latest recorded run.
func Report() error {
	mg.Deps(Build)
	return sh.RunV("bin/kbconvert", "report")
}
