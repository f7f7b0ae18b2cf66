package logger

import (
	"log"
	"os"
)

// New returns a logger writing to the given file, or to stdout when the
// path is empty.
func New(path string) *log.Logger {
	if len(path) == 0 {
		return log.New(os.Stdout, "RVSIM ", log.Ldate|log.Ltime|log.Lshortfile)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		log.Fatal(err)
	}
	l := log.New(f, "RVSIM ", log.Ldate|log.Ltime|log.Lshortfile)
	l.Printf("Initializing rvsim log")
	return l
}
