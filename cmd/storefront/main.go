package main

import "github.com/wichananm65/storefront-backend/cmd/storefront/commands"

func main() {
	commands.Execute()
}
