package backup

import (
	"archive/zip"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

// copyFile copies src to dst and returns the size and CRC-32 of what was
// written. dst is synced before returning.
func copyFile(src, dst string) (int64, uint32, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, 0, err
	}

	sum := crc32.NewIEEE()
	size, err := io.Copy(io.MultiWriter(out, sum), in)
	if err != nil {
		out.Close()
		return 0, 0, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return 0, 0, err
	}
	if err := out.Close(); err != nil {
		return 0, 0, err
	}
	return size, sum.Sum32(), nil
}

// writeArchive stores src in a new zip at dst under its base name.
func writeArchive(src, dst, comment string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			out.Close()
			return err
		}
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		out.Close()
		return err
	}
	header.Name = filepath.Base(src)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// verifyArchive checks that path holds an entry called name whose size and
// CRC-32 match, and that the entry decompresses cleanly.
func verifyArchive(path, name string, size int64, crc uint32) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 != uint64(size) {
			return fmt.Errorf("archive entry %s: size %d, want %d", name, f.UncompressedSize64, size)
		}
		if f.CRC32 != crc {
			return fmt.Errorf("archive entry %s: crc %08x, want %08x", name, f.CRC32, crc)
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
		// The zip reader checks the CRC when the entry is read to the end.
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("archive %s has no entry %s", filepath.Base(path), name)
}
