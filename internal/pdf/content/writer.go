package content

import (
	"bytes"
	"io"
)

// Write serialises operations in content stream syntax, one operator per line
func Write(w io.Writer, ops []Operation) error {
	for _, op := range ops {
		if err := writeOperation(w, op); err != nil {
			return err
		}
	}
	return nil
}

// Bytes serialises operations into a new buffer
func Bytes(ops []Operation) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, ops)
	return buf.Bytes()
}

func writeOperation(w io.Writer, op Operation) error {
	if op.Operator == "BI" {
		return writeInlineImage(w, op)
	}

	for _, arg := range op.Operands {
		if _, err := io.WriteString(w, arg.String()+" "); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, op.Operator+"\n")
	return err
}

func writeInlineImage(w io.Writer, op Operation) error {
	if _, err := io.WriteString(w, "BI"); err != nil {
		return err
	}
	if len(op.Operands) > 0 {
		if params, ok := op.Operands[0].(*Dictionary); ok {
			for _, key := range params.Keys {
				entry := " " + Name{Value: key}.String() + " " + params.Values[key].String()
				if _, err := io.WriteString(w, entry); err != nil {
					return err
				}
			}
		}
	}
	if _, err := io.WriteString(w, " ID\n"); err != nil {
		return err
	}
	if _, err := w.Write(op.Data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nEI\n")
	return err
}
