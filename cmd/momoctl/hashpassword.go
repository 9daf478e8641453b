package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/momo-tracker/internal/auth"
)

type hashPasswordCmd struct {
	Password string `arg:"" help:"Plaintext password to hash."`
	Cost     int    `default:"10" help:"bcrypt cost factor."`
}

func (h *hashPasswordCmd) Run(ctx *context) error {
	if h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	hash, err := auth.HashPassword(h.Password, h.Cost)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
