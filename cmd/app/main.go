package main

import "galleryupload/internal/cli"

func main() {
	cli.Execute()
}
