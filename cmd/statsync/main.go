package main

import "github.com/dbsmedya/statsync/cmd/statsync/cmd"

func main() {
	cmd.Execute()
}
