package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"

	"rent-reclaim-go/internal/config"

	"github.com/gagliardetto/solana-go"
)

// MetadataPDA derives the Metaplex token metadata account for a mint
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("metadata"),
		config.MetadataProgramID.Bytes(),
		mint.Bytes(),
	}
	pda, _, err := solana.FindProgramAddress(seeds, config.MetadataProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return pda, nil
}

// decodeMetadata extracts name, symbol and uri from a raw Metaplex metadata
// account. Layout: key (1 byte), update authority (32), mint (32), then
// three borsh strings, each a little-endian u32 length followed by bytes
// padded with NULs.
func decodeMetadata(data []byte) (name, symbol, uri string, err error) {
	const header = 1 + 32 + 32
	offset := header

	name, offset, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("bad name field: %w", err)
	}
	symbol, offset, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("bad symbol field: %w", err)
	}
	uri, _, err = readBorshString(data, offset)
	if err != nil {
		return "", "", "", fmt.Errorf("bad uri field: %w", err)
	}
	return name, symbol, uri, nil
}

func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, fmt.Errorf("truncated at offset %d", offset)
	}
	length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if length < 0 || offset+length > len(data) {
		return "", 0, fmt.Errorf("string of length %d overruns buffer", length)
	}
	value := strings.TrimRight(string(data[offset:offset+length]), "\x00")
	return strings.TrimSpace(value), offset + length, nil
}
