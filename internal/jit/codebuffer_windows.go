//go:build windows

package jit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocRW reserves and commits a read+write region with VirtualAlloc.
func allocRW(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE,
		windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// protectRX flips the region to PAGE_EXECUTE_READ.
func protectRX(mem []byte) error {
	var old uint32
	return windows.VirtualProtect(
		uintptr(unsafe.Pointer(&mem[0])), uintptr(len(mem)),
		windows.PAGE_EXECUTE_READ, &old)
}

// release frees the region.
func release(mem []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&mem[0])), 0, windows.MEM_RELEASE)
}
