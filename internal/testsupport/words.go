package testsupport

import (
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Words returns n deterministic filler words for the given seed.
func Words(seed int64, n int) []string {
	faker := gofakeit.New(seed)
	words := make([]string, 0, n)
	for len(words) < n {
		word := strings.ToLower(faker.Word())
		if len(word) < 2 {
			continue
		}
		words = append(words, word)
	}
	return words
}

// Sentence returns a deterministic line of n words.
func Sentence(seed int64, n int) string {
	return strings.Join(Words(seed, n), " ")
}

// OwnerID returns a deterministic chat-style owner identifier.
func OwnerID(seed int64) string {
	faker := gofakeit.New(seed)
	return faker.Username()
}
