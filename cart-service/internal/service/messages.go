package service

import "strings"

// Messages are the user-facing strings handed to the notification sink.
type Messages struct {
	OutOfStock   string
	AddFailed    string
	RemoveFailed string
	UpdateFailed string
}

var DefaultMessages = Messages{
	OutOfStock:   "Requested quantity is out of stock",
	AddFailed:    "Could not add the product",
	RemoveFailed: "Could not remove the product",
	UpdateFailed: "Could not change the product quantity",
}

var PortugueseMessages = Messages{
	OutOfStock:   "Quantidade solicitada fora de estoque",
	AddFailed:    "Erro na adição do produto",
	RemoveFailed: "Erro na remoção do produto",
	UpdateFailed: "Erro na alteração de quantidade do produto",
}

// MessagesFor picks a table by BCP 47 tag; unknown tags get English.
func MessagesFor(locale string) Messages {
	tag := strings.ToLower(strings.TrimSpace(locale))
	if tag == "pt" || strings.HasPrefix(tag, "pt-") || strings.HasPrefix(tag, "pt_") {
		return PortugueseMessages
	}
	return DefaultMessages
}

func (m Messages) failure(op Op, kind error) string {
	if kind == ErrInsufficientStock {
		return m.OutOfStock
	}
	switch op {
	case OpAdd:
		return m.AddFailed
	case OpRemove:
		return m.RemoveFailed
	default:
		return m.UpdateFailed
	}
}
