package main

import "github.com/dbsmedya/legacymigrate/cmd/legacymigrate/cmd"

func main() {
	cmd.Execute()
}
