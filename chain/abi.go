package chain

var (
	// PermitWitnessTransferFromABI is the Permit Authority's witness-aware
	// transfer entrypoint.
	PermitWitnessTransferFromABI = []byte(`[
		{
			"type": "function",
			"name": "permitWitnessTransferFrom",
			"inputs": [
				{
					"name": "permit",
					"type": "tuple",
					"components": [
						{
							"name": "permitted",
							"type": "tuple",
							"components": [
								{"name": "token", "type": "address"},
								{"name": "amount", "type": "uint256"}
							]
						},
						{"name": "nonce", "type": "uint256"},
						{"name": "deadline", "type": "uint256"}
					]
				},
				{
					"name": "transferDetails",
					"type": "tuple",
					"components": [
						{"name": "to", "type": "address"},
						{"name": "requestedAmount", "type": "uint256"}
					]
				},
				{"name": "owner", "type": "address"},
				{"name": "witness", "type": "bytes32"},
				{"name": "witnessTypeString", "type": "string"},
				{"name": "signature", "type": "bytes"}
			],
			"outputs": [],
			"stateMutability": "nonpayable"
		}
	]`)

	// ERC2612PermitABI is the token self-service permit entrypoint.
	ERC2612PermitABI = []byte(`[
		{
			"type": "function",
			"name": "permit",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"},
				{"name": "value", "type": "uint256"},
				{"name": "deadline", "type": "uint256"},
				{"name": "v", "type": "uint8"},
				{"name": "r", "type": "bytes32"},
				{"name": "s", "type": "bytes32"}
			],
			"outputs": [],
			"stateMutability": "nonpayable"
		}
	]`)
)
