//go:build linux || darwin || freebsd || netbsd || openbsd

package jit

import "golang.org/x/sys/unix"

// allocRW maps a page-aligned anonymous region with read+write
// protection.
func allocRW(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
}

// protectRX flips the region to read+execute. Write access is dropped
// so the region can never be writable and executable at once.
func protectRX(mem []byte) error {
	return unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC)
}

// release unmaps the region.
func release(mem []byte) error {
	return unix.Munmap(mem)
}
