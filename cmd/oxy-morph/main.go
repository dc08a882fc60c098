// Command oxy-morph blends glTF morph targets on the CPU or through a WebGPU compute kernel.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
