package main

import (
	_ "github.com/classpad/activity-backend/docs"
	"github.com/classpad/activity-backend/internal/bootstrap"
)

// @title Classpad Activity Backend API
// @version 1.0.0
// @description Usage tracking and live presence for the classroom activity suite

// @BasePath /

func main() {
	bootstrap.Run()
}
