// Package staging keeps the render intake directory tidy by removing
// dispatched timeline copies the renderer has long since consumed.
package staging
