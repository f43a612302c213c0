package sandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// CopyInto copies src to relDest under root, overwriting existing files.
// relDest must resolve inside root. Files at the root-relative paths in
// keep are never overwritten. It returns the resolved destination.
func CopyInto(root, relDest, src string, keep ...string) (string, error) {
	dest, err := ValidatePath(root, relDest)
	if err != nil {
		return "", err
	}
	var protected []string
	for _, k := range keep {
		p, err := ValidatePath(root, k)
		if err != nil {
			return "", err
		}
		protected = append(protected, p)
	}
	if err := CopyTree(src, dest, protected...); err != nil {
		return "", err
	}
	return dest, nil
}

// CopyTree copies a file or a directory tree from src to dst.
// A file is copied to exactly dst, or into dst when dst is an existing
// directory. A directory's contents are merged into dst: existing files are
// overwritten, files only in dst are kept. .git directories below src are
// skipped.
//
// Symlinks already present below dst are never followed: a link standing
// where src has a directory or file is replaced. Files whose destination is
// one of the absolute paths in keep are skipped.
func CopyTree(src, dst string, keep ...string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}

	if !info.IsDir() {
		if di, err := os.Stat(dst); err == nil && di.IsDir() {
			dst = filepath.Join(dst, filepath.Base(src))
			if err := unlinkSymlink(dst); err != nil {
				return err
			}
		}
		if slices.Contains(keep, dst) {
			return nil
		}
		return copyFile(src, dst, info.Mode().Perm())
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if d.Name() == ".git" && path != src {
				return filepath.SkipDir
			}
			if rel != "." {
				if err := unlinkSymlink(target); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			if slices.Contains(keep, target) {
				return nil
			}
			return copySymlink(path, target)
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if slices.Contains(keep, target) {
				return nil
			}
			if err := unlinkSymlink(target); err != nil {
				return err
			}
			return copyFile(path, target, fi.Mode().Perm())
		default:
			// sockets, devices and pipes are not vendored
			return nil
		}
	})
}

// unlinkSymlink removes path if it is a symlink.
func unlinkSymlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("replacing link %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := writeAtomic(dst, content, perm); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("reading link %s: %w", src, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing %s: %w", dst, err)
	}
	if err := os.Symlink(link, dst); err != nil {
		return fmt.Errorf("creating link %s: %w", dst, err)
	}
	return nil
}
