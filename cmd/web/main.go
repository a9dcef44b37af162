package main

import "crowdtask_backend/internal/app"

func main() {
	app.Run()
}
