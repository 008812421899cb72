package main

import "github.com/derickschaefer/covidchart/cmd"

func main() {
	cmd.Execute()
}
