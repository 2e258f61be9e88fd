//go:build debug

package compose

const assertInvariants = true
