// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdiddy/kbconvert/internal/container"
)

// DefaultImage is the pandoc container image used when none is configured.
const DefaultImage = "pandoc/core:3.5"

// containerDir is where the document directory is mounted.
const containerDir = "/data"

// Runner executes pandoc with args inside dir, writing its stdout to w.
type Runner interface {
	Run(ctx context.Context, dir string, args []string, w io.Writer) error
}

// LocalRunner runs a pandoc binary from PATH.
type LocalRunner struct {
	Bin string
}

// Run implements Runner.
func (l LocalRunner) Run(ctx context.Context, dir string, args []string, w io.Writer) error {
	bin := l.Bin
	if bin == "" {
		bin = "pandoc"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", bin, err, msg)
		}
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}

// ContainerRunner runs pandoc from a container image with the document
// directory mounted at /data.
type ContainerRunner struct {
	runtime container.Runtime
	image   string
}

// NewContainerRunner verifies that image exists locally in rt.
func NewContainerRunner(rt container.Runtime, image string) (*ContainerRunner, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("pandoc image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerRunner{runtime: rt, image: image}, nil
}

// Run implements Runner.
func (c *ContainerRunner) Run(ctx context.Context, dir string, args []string, w io.Writer) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	return c.runtime.Run(ctx, container.RunSpec{
		Image:   c.image,
		Args:    args,
		Mounts:  []container.Mount{{Host: abs, Container: containerDir}},
		WorkDir: containerDir,
		Stdout:  w,
	})
}

// NewRunner picks the pandoc runner for a backend name: "local" (the
// default) or "container".
func NewRunner(backend, bin, image string) (Runner, error) {
	switch backend {
	case "", "local":
		return LocalRunner{Bin: bin}, nil
	case "container":
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewContainerRunner(rt, image)
	default:
		return nil, fmt.Errorf("unknown pandoc backend %q (want local or container)", backend)
	}
}
