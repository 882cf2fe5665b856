//go:build !unix

package term

import "golang.org/x/term"

func windowSize(fd int) (int, int, error) {
	return term.GetSize(fd)
}
