// Package templates holds the templ components used as email bodies.
package templates
