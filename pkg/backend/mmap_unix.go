//go:build unix

package backend

import "golang.org/x/sys/unix"

func mapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func flushMap(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
