// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace holds the filesystem helpers shared by the converters:
// finding input files, reading text with an encoding fallback, and
// replacing documents with a backup of the original.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// BackupSuffix is appended to the original file name before a rewrite.
const BackupSuffix = ".bak"

// ErrNotFound is returned when a lookup finds no matching file.
var ErrNotFound = errors.New("file not found")

// ImageExtensions are the extensions FindImage tries, in order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".pdf"}

// FindFiles returns the files under root whose extension is one of exts
// (case-insensitive), sorted. When recursive is false only root itself is
// searched. Backups and hidden directories are skipped. A root that is a
// file is returned as is when its extension matches.
func FindFiles(root string, recursive bool, exts ...string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if hasExt(root, exts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, BackupSuffix) {
			return nil
		}
		if hasExt(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ReadText reads a text file as UTF-8. Files that are not valid UTF-8 are
// decoded as Latin-1, which older LaTeX sources often use. latin1 reports
// whether the fallback was taken.
func ReadText(path string) (text string, latin1 bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}
	if utf8.Valid(data) {
		return string(data), false, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", false, fmt.Errorf("decoding %s as latin-1: %w", path, err)
	}
	return string(decoded), true, nil
}

// WriteWithBackup replaces path with content. An existing file is first
// renamed to path+".bak" (replacing an older backup); the new content is
// written to a temporary file in the same directory and renamed into
// place, so path never holds a partial document.
func WriteWithBackup(path, content string) (backup string, err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmpName, err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
		backup = path + BackupSuffix
		if err = os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("backing up %s: %w", path, err)
		}
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return backup, fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return backup, fmt.Errorf("replacing %s: %w", path, err)
	}
	return backup, nil
}

// FindImage resolves an image reference without extension (as LaTeX
// writes them, "figures/plot") to an existing file relative to dir. A
// reference that already names an existing file is returned unchanged.
func FindImage(dir, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty image reference: %w", ErrNotFound)
	}
	if fileExists(filepath.Join(dir, ref)) {
		return ref, nil
	}
	base := strings.TrimSuffix(ref, filepath.Ext(ref))
	for _, ext := range ImageExtensions {
		for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
			if fileExists(filepath.Join(dir, candidate)) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("image %s in %s: %w", ref, dir, ErrNotFound)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
