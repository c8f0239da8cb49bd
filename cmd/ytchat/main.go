package main

import "jamesfarrell.me/youtube-chat/internal/cli"

func main() {
	cli.Main()
}
