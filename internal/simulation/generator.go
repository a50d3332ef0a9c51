package simulation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/okian/datemaker/internal/domain/model"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	minAge             = 21
	ageRange           = 20
	daysPerYear        = 365
)

var cities = []string{"Lisbon", "Porto", "Madrid", "Berlin"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n).
func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateUsers builds n profiles. The first two always cover both sexes so
// a schedule can exist.
func generateUsers(n int, at time.Time) []model.User {
	users := make([]model.User, n)
	for i := range users {
		sex := model.SexMale
		switch {
		case i == 1:
			sex = model.SexFemale
		case i > 1 && getRandomInt(2) == 1:
			sex = model.SexFemale
		}
		age := minAge + getRandomInt(ageRange)
		code := uuid.NewString()[:8]
		users[i] = model.User{
			ID:        int64(i + 1),
			Username:  "guest_" + code,
			Name:      fmt.Sprintf("Guest %d", i+1),
			BirthDate: at.AddDate(-age, 0, -getRandomInt(daysPerYear)),
			Sex:       sex,
			City:      cities[getRandomInt(len(cities))],
		}
	}
	return users
}
