package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"gotrial/ui"
)

func main() {
	_ = godotenv.Load()

	app, err := ui.NewApp(ui.Config{
		Port:          os.Getenv("PORT"),
		RscriptBin:    os.Getenv("RSCRIPT_BIN"),
		SEMServiceURL: os.Getenv("SEM_SERVICE_URL"),
		ImportFile:    os.Getenv("IMPORT_FILE"),
	})
	if err != nil {
		log.Fatal("Failed to create explorer app:", err)
	}

	log.Fatal(app.Start())
}
