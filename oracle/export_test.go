package oracle

// WaitAnswered blocks until the dedupe cache has applied its pending
// admissions. Set is asynchronous, so tests flush it before asserting a
// second Process call short-circuits.
func WaitAnswered(p *Processor) { p.answered.Wait() }
