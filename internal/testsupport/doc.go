// Package testsupport holds fixtures shared by package tests: temp-directory
// configs, a sample timeline, and project seeding helpers.
package testsupport
