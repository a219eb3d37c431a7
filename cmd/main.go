package main

import (
	"github.com/probe-agent/cmd/agent"
)

func main() {
	agent.Execute()
}
