//go:build !linux

package main

func isTerminal(fd int) bool { return false }
