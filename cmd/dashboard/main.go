package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"netattack-sim/internal/dashboard"
)

func main() {
	out := flag.String("out", "build", "Output directory for rendered dashboards")
	flag.Parse()
	_ = godotenv.Load()
	if err := dashboard.Render(*out); err != nil {
		log.Fatal(err)
	}
}
