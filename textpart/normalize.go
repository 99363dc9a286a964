package textpart

// Normalize strips all line-ending byte sequences from the part's content
// into the stripped buffer. Every removal point is recorded as a zero-length
// newline exception. HTML-origin exceptions already present on the part are
// kept, remapped from content to stripped coordinates: offsets shift by the
// bytes removed before them, and spans shrink by the line-ending bytes
// removed inside them. After normalization the merged list shares one
// coordinate system and is sorted by offset, the total order every
// downstream consumer relies on.
func Normalize(p *TextPart) {
	markup := p.Exceptions
	sortExceptions(markup)

	stripped := make([]byte, 0, len(p.Content))
	var exceptions []Exception
	mi := 0

	// Emitted markup exceptions whose content-coordinate span may still
	// cover upcoming line endings: index into exceptions plus the span's end
	// in content coordinates.
	var active []int
	var activeEnd []int

	for i := 0; i < len(p.Content); i++ {
		for mi < len(markup) && markup[mi].Offset <= i {
			e := markup[mi]
			end := e.Offset + e.Length
			e.Offset = len(stripped)
			exceptions = append(exceptions, e)
			if end > i {
				active = append(active, len(exceptions)-1)
				activeEnd = append(activeEnd, end)
			}
			mi++
		}
		for len(active) > 0 && activeEnd[0] <= i {
			active = active[1:]
			activeEnd = activeEnd[1:]
		}

		c := p.Content[i]
		if c != '\r' && c != '\n' {
			stripped = append(stripped, c)
			continue
		}
		n := 1
		if c == '\r' && i+1 < len(p.Content) && p.Content[i+1] == '\n' {
			n = 2
		}
		for j, x := range active {
			for k := 0; k < n; k++ {
				if i+k < activeEnd[j] {
					exceptions[x].Length--
				}
			}
		}
		exceptions = append(exceptions, Exception{Offset: len(stripped), Length: 0, Kind: ExceptionNewline})
		p.NumLines++
		i += n - 1
	}
	for ; mi < len(markup); mi++ {
		e := markup[mi]
		e.Offset = len(stripped)
		exceptions = append(exceptions, e)
	}

	p.Stripped = stripped
	p.Exceptions = exceptions
	sortExceptions(p.Exceptions)
}
