package main

import "ad-anomaly-alerts/internal/cli"

func main() {
	cli.Execute()
}
