// Copyright 2024 The pyport Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive packs a finalized install tree into a distributable
// tarball and fingerprints it.
package archive

import (
	"archive/tar"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/pyport/internal/platform"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
	"zombiezen.com/go/nix/nar"
	"zombiezen.com/go/nix/nixbase32"
)

// Name returns the archive file name of a build, for example
// "cpython-3.9.6-linux-x86_64-static.tar.xz".
func Name(v pyver.Version, p platform.Platform, static bool, compression string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cpython-%s-%s", v, p)
	if static {
		b.WriteString("-static")
	}
	b.WriteString(".tar.")
	b.WriteString(compression)
	return b.String()
}

// Compress writes srcDir as a tarball to dest. The compression follows
// dest's extension: ".tar.gz", ".tgz" or ".tar.xz". Entries are rooted at
// the base name of srcDir and written in lexical order.
func Compress(srcDir, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), ".archive-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	var zw io.WriteCloser
	switch {
	case strings.HasSuffix(dest, ".tar.gz"), strings.HasSuffix(dest, ".tgz"):
		zw, err = gzip.NewWriterLevel(f, gzip.BestCompression)
	case strings.HasSuffix(dest, ".tar.xz"):
		zw, err = xz.NewWriter(f)
	default:
		return fmt.Errorf("%s: unsupported archive extension", dest)
	}
	if err != nil {
		return err
	}
	if err = writeTar(zw, srcDir); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dest)
}

func writeTar(w io.Writer, srcDir string) error {
	tw := tar.NewWriter(w)
	base := filepath.Base(srcDir)
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(base, rel))

		fi, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if fi.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(fi, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

// Digest fingerprints the tree at dir as "sha256:" followed by the
// nix base-32 hash of its NAR serialization. The NAR form ignores
// timestamps and ownership, so equal trees have equal digests.
func Digest(dir string) (string, error) {
	h := sha256.New()
	if err := nar.DumpPath(h, dir); err != nil {
		return "", fmt.Errorf("digest %s: %w", dir, err)
	}
	return "sha256:" + nixbase32.EncodeToString(h.Sum(nil)), nil
}
