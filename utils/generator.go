package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

const transactionCodeLength = 10
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTransactionCode produces a collision-resistant correlation code for
// payments created without a gateway-issued reference. Uniqueness is enforced
// by re-rolling against the payments table.
func GenerateTransactionCode(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, transactionCodeLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := fmt.Sprintf("PAY-%s", string(b))

		var payment models.Payment
		err := tx.Where("transaction_code = ?", code).First(&payment).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return code, nil
			}
			return "", err
		}
	}
}
