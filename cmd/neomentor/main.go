// Command neomentor runs the lesson pipeline on the local machine.
//
// Usage:
//
//	neomentor run --topic "Photosynthesis" --time 15s --audio voice.wav [--image face.png]
//	neomentor run -f job.yaml
//	neomentor history
//	neomentor probe final_output.mp4
package main

import (
	"fmt"
	"os"

	"neomentor/cmd/neomentor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
