package processor

import "github.com/crimson-sun/timber/internal/doc"

func init() {
	Register("add_field", newAddField)
	Register("remove_field", newRemoveField)
	Register("rename_field", newRenameField)
	Register("append_list", newAppendList)
	Register("remove_from_list", newRemoveFromList)
}

type addField struct {
	path  string
	value any
}

func newAddField(cfg Config) (Processor, error) {
	path, err := cfg.String("path")
	if err != nil {
		return nil, err
	}
	value, err := cfg.Value("value")
	if err != nil {
		return nil, err
	}
	return &addField{path: path, value: value}, nil
}

func (p *addField) Process(d *doc.Doc) error {
	d.AddField(p.path, doc.CloneValue(p.value))
	return nil
}

type removeField struct {
	paths []string
}

func newRemoveField(cfg Config) (Processor, error) {
	paths, err := cfg.fieldsOf()
	if err != nil {
		return nil, err
	}
	return &removeField{paths: paths}, nil
}

func (p *removeField) Process(d *doc.Doc) error {
	for _, path := range p.paths {
		d.RemoveField(path)
	}
	return nil
}

type renameField struct {
	from, to string
}

func newRenameField(cfg Config) (Processor, error) {
	from, err := cfg.String("from")
	if err != nil {
		return nil, err
	}
	to, err := cfg.String("to")
	if err != nil {
		return nil, err
	}
	return &renameField{from: from, to: to}, nil
}

func (p *renameField) Process(d *doc.Doc) error {
	d.RenameField(p.from, p.to)
	return nil
}

type appendList struct {
	path  string
	value any
}

func newAppendList(cfg Config) (Processor, error) {
	path, err := cfg.String("path")
	if err != nil {
		return nil, err
	}
	value, err := cfg.Value("value")
	if err != nil {
		return nil, err
	}
	return &appendList{path: path, value: value}, nil
}

func (p *appendList) Process(d *doc.Doc) error {
	d.AppendList(p.path, doc.CloneValue(p.value))
	return nil
}

type removeFromList struct {
	path  string
	value any
}

func newRemoveFromList(cfg Config) (Processor, error) {
	path, err := cfg.String("path")
	if err != nil {
		return nil, err
	}
	value, err := cfg.Value("value")
	if err != nil {
		return nil, err
	}
	return &removeFromList{path: path, value: value}, nil
}

func (p *removeFromList) Process(d *doc.Doc) error {
	d.RemoveFromList(p.path, p.value)
	return nil
}
