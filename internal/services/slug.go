package services

import (
	"fmt"
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a lowercase, hyphenated, URL-safe identifier from a store
// name: "Coffee & Tea House" -> "coffee-tea-house".
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// UniqueSlug picks a slug that does not collide with the existing ones.
// Existing slugs are matched against ^base(-[0-9]*)?$ (case-insensitive);
// with n matches the result is "base-<n+1>", with none it is base itself.
func UniqueSlug(base string, existing []string) string {
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(base) + `(-[0-9]*)?$`)
	matches := 0
	for _, s := range existing {
		if re.MatchString(s) {
			matches++
		}
	}
	if matches == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, matches+1)
}
