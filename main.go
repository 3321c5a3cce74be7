package main

import (
	"BerryBox/cmd"
)

func main() {
	cmd.Execute()
}
