package main

import (
	"fmt"
	"os"
)

func main() {
	a := &app{out: os.Stdout, newUploader: newS3Uploader}
	if err := newRootCommand(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
