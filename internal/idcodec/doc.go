// Package idcodec maps stable integer identifiers to the compact strings
// published in releases and back.
//
// The Latin29 alphabet is part of the public contract: every DOI, link and
// export that cites a released name usage embeds these strings, so the
// alphabet and digit order are frozen.
package idcodec
