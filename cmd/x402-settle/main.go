package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "mine":
		err = mine(args)
	case "address":
		err = address(args)
	case "deploy":
		err = deployRun(args)
	case "serve":
		err = serve(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `x402-settle - Permit2 settlement engine tooling

Usage: x402-settle <command> [options]

Commands:
  mine      Search CREATE2 salts for a vanity engine address
  address   Compute the deterministic address for (deployer, salt, init code)
  deploy    Deploy init code through the deterministic deployer
  serve     Run the settlement HTTP service against an RPC endpoint
  help      Show this help

Run 'x402-settle <command> -h' for command options.
`)
}
