// Package timber processes JSON log records as path-addressable documents.
//
// Quick start:
//
//	p, err := timber.New(timber.WithDefinition([]byte(`
//	processors:
//	  - type: rename_field
//	    config: {from: msg, to: message}
//	`)), timber.WithFlatten())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, _ := p.ProcessJSON([]byte(`{"msg":"connection refused","db":{"port":5432}}`))
//	fmt.Println(out["db.port"]) // 5432
//
// Paths use "." between segments and "\" to escape a literal dot. A Processor
// is safe for concurrent use. Create once, reuse across requests.
package timber
