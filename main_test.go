package main

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	log = newLogger("", false)
	os.Exit(m.Run())
}
