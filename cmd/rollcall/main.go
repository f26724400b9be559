// Command rollcall runs the face-recognition attendance service and its
// operator tooling.
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
