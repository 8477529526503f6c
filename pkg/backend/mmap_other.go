//go:build !unix

package backend

import "errors"

func mapAnon(int) ([]byte, error) { return nil, errors.ErrUnsupported }
func flushMap([]byte) error       { return nil }
func unmap([]byte) error          { return nil }
