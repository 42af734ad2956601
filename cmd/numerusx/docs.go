package main

//go:generate swag init -g cmd/numerusx/main.go -o docs

// @title           NumerusX API
// @version         0.1.0
// @description     Solana token signal aggregation, AI trade decisions, and Jupiter execution.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
