package work

// BlockTemplate is the part of a getblocktemplate result that goes into a
// job.
type BlockTemplate struct {
	Version           uint32            `json:"version"`
	PreviousBlockHash string            `json:"previousblockhash"`
	Transactions      []BlockTemplateTx `json:"transactions"`
	CoinbaseAux       struct {
		Flags string `json:"flags"`
	} `json:"coinbaseaux"`
	CoinbaseValue            int64  `json:"coinbasevalue"`
	LongPollID               string `json:"longpollid"`
	CurTime                  int64  `json:"curtime"`
	Bits                     string `json:"bits"`
	Height                   int64  `json:"height"`
	DefaultWitnessCommitment string `json:"default_witness_commitment"`
}

// BlockTemplateTx is one non-coinbase transaction, in block order.
type BlockTemplateTx struct {
	Data string `json:"data"`
	TxID string `json:"txid"`
	Hash string `json:"hash"`
}

// HasWitness reports whether tx carries witness data, i.e. its wtxid
// differs from its txid.
func (tx BlockTemplateTx) HasWitness() bool {
	return tx.Hash != "" && tx.Hash != tx.TxID
}
