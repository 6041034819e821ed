// Package slowmo caches resampled producers so every clip played at the same
// speed and strobe from the same source shares one handle.
package slowmo
