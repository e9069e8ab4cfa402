package main

import (
	"log"

	"github.com/soapboxsocial/fanout/cmd/worker/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
