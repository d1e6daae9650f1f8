package main

import "github.com/goplus/pyport/cmd/pyport/internal"

func main() {
	internal.Execute()
}
