package qdrantdb

import (
	"github.com/qdrant/go-client/qdrant"
)

const DefaultCollection = "linkmind_chunks"

func NewClient(host string, port int) (*qdrant.Client, error) {
	return qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port, // gRPC port
	})
}
