package main

import "github.com/app-sre/secret-expiration-notifier/cmd"

func main() {
	cmd.Execute()
}
