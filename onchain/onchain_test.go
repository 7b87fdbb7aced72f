package onchain

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-merkletree-sql/v2"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	t       *testing.T
	to      common.Address
	respond func(data []byte) ([]byte, error)
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	require.NotNil(f.t, call.To)
	require.Equal(f.t, f.to, *call.To)

	return f.respond(call.Data)
}

var testAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

func TestKeyBytes32(t *testing.T) {
	key := big.NewInt(0xabcd)

	out := KeyBytes32(key)
	require.Equal(t, byte(0xab), out[30])
	require.Equal(t, byte(0xcd), out[31])
	require.Equal(t, byte(0), out[0])
}

func TestRegistryGetPassportInfo(t *testing.T) {
	wantPassport := PassportInfo{
		ActiveIdentity:         KeyBytes32(big.NewInt(777)),
		IdentityReissueCounter: 3,
	}
	wantIdentity := IdentityInfo{
		ActivePassport: KeyBytes32(big.NewInt(888)),
		IssueTimestamp: 1700000000,
	}

	var registry *Registry
	caller := &fakeCaller{
		t:  t,
		to: testAddress,
		respond: func(data []byte) ([]byte, error) {
			method := registry.abi.Methods["getPassportInfo"]
			require.True(t, bytes.HasPrefix(data, method.ID))

			return method.Outputs.Pack(wantPassport, wantIdentity)
		},
	}

	registry, err := NewRegistry(caller, testAddress)
	require.NoError(t, err)

	passport, identity, err := registry.GetPassportInfo(context.Background(), KeyBytes32(big.NewInt(1)))
	require.NoError(t, err)
	require.Equal(t, wantPassport, *passport)
	require.Equal(t, wantIdentity, *identity)

	require.True(t, passport.Registered())
	require.Zero(t, passport.ActiveIdentityKey().Cmp(big.NewInt(777)))
}

func TestPassportInfoRegistered_Zero(t *testing.T) {
	var p PassportInfo
	require.False(t, p.Registered())
}

func TestSMTGetProof(t *testing.T) {
	raw := smtProofRaw{
		Root:      KeyBytes32(big.NewInt(0x1234)),
		Siblings:  [][32]byte{KeyBytes32(big.NewInt(5)), KeyBytes32(big.NewInt(6))},
		Existence: true,
	}

	var smt *SMT
	caller := &fakeCaller{
		t:  t,
		to: testAddress,
		respond: func(data []byte) ([]byte, error) {
			method := smt.abi.Methods["getProof"]
			require.True(t, bytes.HasPrefix(data, method.ID))

			return method.Outputs.Pack(raw)
		},
	}

	smt, err := NewSMT(caller, testAddress)
	require.NoError(t, err)

	proof, err := smt.GetProof(context.Background(), KeyBytes32(big.NewInt(9)))
	require.NoError(t, err)
	require.True(t, proof.Existence)
	require.Zero(t, proof.Root.BigInt().Cmp(big.NewInt(0x1234)))
	require.Len(t, proof.Siblings, 2)
	require.Zero(t, proof.Siblings[1].BigInt().Cmp(big.NewInt(6)))
}

func TestSMTProofPreparedSiblings(t *testing.T) {
	sibling, err := merkletree.NewHashFromBigInt(big.NewInt(3))
	require.NoError(t, err)

	proof := &SMTProof{Siblings: []*merkletree.Hash{sibling}}

	prepared := proof.PreparedSiblings(80)
	require.Len(t, prepared, 80)
	require.Zero(t, prepared[0].BigInt().Cmp(big.NewInt(3)))
	require.Zero(t, prepared[79].BigInt().Sign())
}

func TestSMTProofPreparedSiblings_Clamps(t *testing.T) {
	siblings := make([]*merkletree.Hash, 5)
	for i := range siblings {
		var err error
		siblings[i], err = merkletree.NewHashFromBigInt(big.NewInt(int64(i + 1)))
		require.NoError(t, err)
	}

	proof := &SMTProof{Siblings: siblings}

	prepared := proof.PreparedSiblings(3)
	require.Len(t, prepared, 3)
	require.Zero(t, prepared[2].BigInt().Cmp(big.NewInt(3)))
}

func TestSMTRoot(t *testing.T) {
	want := KeyBytes32(big.NewInt(0x4242))

	var smt *SMT
	caller := &fakeCaller{
		t:  t,
		to: testAddress,
		respond: func(data []byte) ([]byte, error) {
			method := smt.abi.Methods["getRoot"]
			require.True(t, bytes.HasPrefix(data, method.ID))

			return method.Outputs.Pack(want)
		},
	}

	smt, err := NewSMT(caller, testAddress)
	require.NoError(t, err)

	root, err := smt.Root(context.Background())
	require.NoError(t, err)
	require.Zero(t, root.BigInt().Cmp(big.NewInt(0x4242)))
}

type fakeTreeProofSource struct {
	root  *merkletree.Hash
	index *big.Int
	proof *SMTProof
}

func (f *fakeTreeProofSource) GetProof(_ context.Context, root *merkletree.Hash,
	index *big.Int) (*SMTProof, error) {

	f.root = root
	f.index = index
	return f.proof, nil
}

func TestRHSProofSource(t *testing.T) {
	var smt *SMT
	caller := &fakeCaller{
		t:  t,
		to: testAddress,
		respond: func(data []byte) ([]byte, error) {
			method := smt.abi.Methods["getRoot"]
			require.True(t, bytes.HasPrefix(data, method.ID))

			return method.Outputs.Pack(KeyBytes32(big.NewInt(0x1001)))
		},
	}

	smt, err := NewSMT(caller, testAddress)
	require.NoError(t, err)

	tree := &fakeTreeProofSource{proof: &SMTProof{Existence: true}}
	source := NewRHSProofSource(tree, smt)

	proof, err := source.GetProof(context.Background(), KeyBytes32(big.NewInt(77)))
	require.NoError(t, err)
	require.True(t, proof.Existence)
	require.Zero(t, tree.root.BigInt().Cmp(big.NewInt(0x1001)))
	require.Zero(t, tree.index.Cmp(big.NewInt(77)))
}

func TestNewRHSSource_EmptyURL(t *testing.T) {
	_, err := NewRHSSource("")
	require.Error(t, err)
}

func TestRHSVotingProofSource(t *testing.T) {
	treeAddress := common.HexToAddress("0x0000000000000000000000000000000000000987")

	caller := &fakeCaller{
		t:  t,
		to: treeAddress,
		respond: func(data []byte) ([]byte, error) {
			smt, err := NewSMT(nil, treeAddress)
			require.NoError(t, err)
			method := smt.abi.Methods["getRoot"]
			require.True(t, bytes.HasPrefix(data, method.ID))

			return method.Outputs.Pack(KeyBytes32(big.NewInt(0x2002)))
		},
	}

	tree := &fakeTreeProofSource{proof: &SMTProof{Existence: false}}
	source := NewRHSVotingProofSource(tree, caller)

	proof, err := source.GetProof(context.Background(), treeAddress,
		KeyBytes32(big.NewInt(88)))
	require.NoError(t, err)
	require.False(t, proof.Existence)
	require.Zero(t, tree.root.BigInt().Cmp(big.NewInt(0x2002)))
	require.Zero(t, tree.index.Cmp(big.NewInt(88)))
}

func TestProposalsReads(t *testing.T) {
	wantInfo := ProposalInfo{
		ProposalSMT: common.HexToAddress("0x0000000000000000000000000000000000000123"),
		Status:      2,
		Config: ProposalConfig{
			StartTimestamp:      1000,
			Duration:            500,
			Multichoice:         big.NewInt(1),
			AcceptedOptions:     []*big.Int{big.NewInt(0), big.NewInt(1)},
			Description:         "QmTestCID",
			VotingWhitelist:     []common.Address{testAddress},
			VotingWhitelistData: [][]byte{{0x01}},
		},
	}
	wantEventID := big.NewInt(100500)
	wantRules := ProposalCriteria{
		Selector:                  big.NewInt(0x1A01),
		CitizenshipWhitelist:      []*big.Int{big.NewInt(0x554B52)},
		TimestampUpperbound:       big.NewInt(0),
		IdentityCounterUpperbound: big.NewInt(1),
		Sex:                       big.NewInt(0),
		BirthDateLowerbound:       big.NewInt(0x303030303030),
		BirthDateUpperbound:       big.NewInt(0x303030303030),
		ExpirationDateLowerbound:  big.NewInt(0x303030303030),
	}

	var proposals *Proposals
	caller := &fakeCaller{
		t:  t,
		to: testAddress,
		respond: func(data []byte) ([]byte, error) {
			for name, method := range proposals.abi.Methods {
				if !bytes.HasPrefix(data, method.ID) {
					continue
				}
				switch name {
				case "getProposalInfo":
					return method.Outputs.Pack(wantInfo)
				case "getProposalEventId":
					return method.Outputs.Pack(wantEventID)
				case "getProposalRules":
					return method.Outputs.Pack(wantRules)
				}
			}
			t.Fatalf("unexpected call data %x", data)
			return nil, nil
		},
	}

	proposals, err := NewProposals(caller, testAddress)
	require.NoError(t, err)

	info, err := proposals.GetProposalInfo(context.Background(), big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, wantInfo, *info)
	require.Equal(t, uint64(1500), info.EndTimestamp())

	eventID, err := proposals.GetProposalEventID(context.Background(), big.NewInt(7))
	require.NoError(t, err)
	require.Zero(t, eventID.Cmp(wantEventID))

	rules, err := proposals.GetProposalRules(context.Background(), big.NewInt(7), testAddress)
	require.NoError(t, err)
	require.Equal(t, wantRules, *rules)
}

func TestRegisterCalldata(t *testing.T) {
	passport := RegisterPassport{
		DataGroupCommitment: KeyBytes32(big.NewInt(1)),
		Dg1Hash:             KeyBytes32(big.NewInt(2)),
		PublicKey:           []byte{0xaa, 0xbb},
		PassportHash:        KeyBytes32(big.NewInt(3)),
		Verifier:            testAddress,
	}

	calldata, err := RegisterCalldata(big.NewInt(42), passport, []byte{0x01}, []byte{0x02})
	require.NoError(t, err)

	wantSelector := crypto.Keccak256([]byte(registerSignature))[:4]
	require.Equal(t, wantSelector, calldata[:4])

	uint256T, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	passportT, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "dataGroupCommitment", Type: "bytes32"},
		{Name: "dg1Hash", Type: "bytes32"},
		{Name: "publicKey", Type: "bytes"},
		{Name: "passportHash", Type: "bytes32"},
		{Name: "verifier", Type: "address"},
	})
	require.NoError(t, err)
	bytesT, err := abi.NewType("bytes", "", nil)
	require.NoError(t, err)

	arguments := abi.Arguments{{Type: uint256T}, {Type: passportT}, {Type: bytesT}, {Type: bytesT}}

	out, err := arguments.Unpack(calldata[4:])
	require.NoError(t, err)
	require.Zero(t, out[0].(*big.Int).Cmp(big.NewInt(42)))

	unpacked := abi.ConvertType(out[1], new(RegisterPassport)).(*RegisterPassport)
	require.Equal(t, passport, *unpacked)
	require.Equal(t, []byte{0x01}, out[2].([]byte))
	require.Equal(t, []byte{0x02}, out[3].([]byte))
}

func TestVoteCalldata(t *testing.T) {
	calldata, err := VoteCalldata(
		big.NewInt(7),
		[]*big.Int{big.NewInt(1)},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
		[]byte{0xfe},
	)
	require.NoError(t, err)

	wantSelector := crypto.Keccak256([]byte(voteSignature))[:4]
	require.Equal(t, wantSelector, calldata[:4])
	require.Greater(t, len(calldata), 4)
}
