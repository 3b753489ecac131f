// Package slugs generates the human-memorable public identifiers handed out
// for uploaded recordings.
package slugs

import (
	"fmt"
	"math/rand"
)

// Vocabulary for slug generation. 30 x 30 words plus a 3-digit suffix gives
// roughly 810,000 combinations, so collisions against the live record set
// stay rare and allocation retries stay O(1) in practice.
var animals = []string{
	"cat", "dog", "fox", "bear", "wolf", "lion", "tiger", "eagle", "hawk", "owl",
	"deer", "rabbit", "squirrel", "otter", "panda", "koala", "zebra", "giraffe",
	"elephant", "dolphin", "whale", "shark", "turtle", "penguin", "flamingo",
	"parrot", "butterfly", "bee", "dragonfly", "spider",
}

var designObjects = []string{
	"circle", "triangle", "square", "diamond", "star", "heart", "cloud",
	"lightning", "rainbow", "spiral", "wave", "arrow", "cross", "dot", "line",
	"curve", "polygon", "hexagon", "octagon", "oval", "rectangle", "rhombus",
	"trapezoid", "crescent", "gear", "flower", "leaf", "branch", "tree", "mountain",
}

// maxAttempts bounds the generate-and-check loop. With the vocabulary size
// above, hitting this limit means the store is close to saturation.
const maxAttempts = 100

// Checker answers whether a candidate slug is already in use
type Checker interface {
	SlugExists(slug string) (bool, error)
}

// Generate produces a random slug candidate of the form
// <animal>-<design>-<3 digits>, e.g. "otter-spiral-482".
func Generate() string {
	animal := animals[rand.Intn(len(animals))]
	design := designObjects[rand.Intn(len(designObjects))]
	number := rand.Intn(900) + 100
	return fmt.Sprintf("%s-%s-%d", animal, design, number)
}

// Allocate returns a slug that is unused at check time. The check is not
// atomic with the eventual insert; callers must still handle a duplicate-slug
// rejection from the store and allocate again.
func Allocate(checker Checker) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := Generate()

		exists, err := checker.SlugExists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug candidate: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug after %d attempts", maxAttempts)
}
