package main

import "github.com/mselser95/predict-agent/cmd"

func main() {
	cmd.Execute()
}
