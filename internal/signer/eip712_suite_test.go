package signer_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gxplatform/powminer/internal/contract"
	"github.com/gxplatform/powminer/internal/signer"
)

func TestSignerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EIP-712 canonicalization suite")
}

var _ = Describe("ExecuteMsg canonicalization", func() {
	DescribeTable("decode(encode(msg)) is a fixed point",
		func(msg contract.ExecuteMsg) {
			encoded, err := json.Marshal(msg)
			Expect(err).NotTo(HaveOccurred())

			var decoded contract.ExecuteMsg
			Expect(json.Unmarshal(encoded, &decoded)).To(Succeed())

			reencoded, err := json.Marshal(decoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(reencoded).To(MatchJSON(encoded))
		},
		Entry("commit_solution", contract.ExecuteMsg{CommitSolution: &contract.CommitSolution{}}),
		Entry("reveal_solution", contract.ExecuteMsg{RevealSolution: &contract.RevealSolution{}}),
		Entry("claim_reward", contract.ExecuteMsg{ClaimReward: &contract.ClaimReward{EpochNumber: 9}}),
		Entry("finalize_epoch", contract.ExecuteMsg{FinalizeEpoch: &contract.FinalizeEpoch{EpochNumber: 3}}),
		Entry("advance_epoch", contract.ExecuteMsg{AdvanceEpoch: &contract.AdvanceEpoch{}}),
	)
})

var _ = Describe("EIP-712 domain separator", func() {
	It("is a deterministic 32-byte value for the testnet domain", func() {
		d := signer.TestnetDomain()
		sep := d.Separator()
		Expect(sep).To(HaveLen(32))
		Expect(d.Separator()).To(Equal(sep))
	})
})
