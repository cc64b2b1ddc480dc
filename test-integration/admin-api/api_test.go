package integration

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	ethcommon "github.com/ethereum/go-ethereum/common"

	v1 "github.com/verinode/token-registry-server/internal/api/v1"
	"github.com/verinode/token-registry-server/internal/tokens"
	"github.com/verinode/token-registry-server/test-integration/admin-api/helpers"
)

const signingSecret = "integration-signing-secret"

var _ = Describe("Admin API", Label("api"), func() {
	var (
		tempDir      string
		serverHelper *helpers.ServerTestHelper
		credential   string
	)

	idPtr := func(v tokens.TokenID) *tokens.TokenID { return &v }

	expectUnauthorized := func(resp *http.Response) {
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(`Bearer realm="token-registry"`))
		Expect(helpers.ReadBody(resp)).To(MatchJSON(`{"error": "unauthorized"}`))
	}

	BeforeEach(func() {
		resetTokens()

		tempDir = createTempDir("admin-api-test-")
		configPath := helpers.WriteServerConfig(tempDir, helpers.AdminServerConfig{
			ConnStr: dbConnStr,
			Workers: 1,
			Realm:   "token-registry",
			Secret:  signingSecret,
		})

		serverHelper = helpers.NewServerTestHelper(ctx, configPath, helpers.FreePort(), signingSecret)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)

		credential = serverHelper.MintCredential("admin", time.Hour)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		cleanupTempDir(tempDir)
	})

	Context("Credential Enforcement", func() {
		It("should reject requests without a credential", func() {
			resp, err := serverHelper.ListTokens("")
			Expect(err).NotTo(HaveOccurred())

			expectUnauthorized(resp)
		})

		It("should reject an expired credential with the same challenge", func() {
			expired := serverHelper.MintCredential("admin", -time.Hour)

			resp, err := serverHelper.ListTokens(expired)
			Expect(err).NotTo(HaveOccurred())

			expectUnauthorized(resp)
		})

		It("should reject a credential signed with a different secret", func() {
			claims := &jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}
			forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
				SignedString([]byte("some-other-secret"))
			Expect(err).NotTo(HaveOccurred())

			resp, err := serverHelper.ListTokens(forged)
			Expect(err).NotTo(HaveOccurred())

			expectUnauthorized(resp)
		})

		It("should reject a well-signed credential that lacks a subject", func() {
			claims := &jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}
			anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
				SignedString([]byte(signingSecret))
			Expect(err).NotTo(HaveOccurred())

			resp, err := serverHelper.ListTokens(anonymous)
			Expect(err).NotTo(HaveOccurred())

			expectUnauthorized(resp)
		})

		It("should leave the health endpoint open", func() {
			resp, err := serverHelper.GetHealth()
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.ReadBody(resp)).To(MatchJSON(`{"status": "healthy"}`))
		})
	})

	Context("Registering Tokens", func() {
		It("should register a token under an explicit identifier", func() {
			address := ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

			resp, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				ID:       idPtr(7),
				Address:  address,
				Symbol:   "USDC",
				Decimals: 6,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			registered := helpers.DecodeToken(resp)
			Expect(registered.ID).To(Equal(tokens.TokenID(7)))
			Expect(registered.Address).To(Equal(address))
			Expect(registered.Symbol).To(Equal("USDC"))
			Expect(registered.Decimals).To(Equal(uint8(6)))

			getResp, err := serverHelper.GetToken(credential, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(getResp.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeToken(getResp)).To(Equal(registered))
		})

		It("should assign the current count when no identifier is given", func() {
			first, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				Address:  ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Symbol:   "WETH",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeToken(first).ID).To(Equal(tokens.TokenID(0)))

			second, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				Address:  ethcommon.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
				Symbol:   "DAI",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeToken(second).ID).To(Equal(tokens.TokenID(1)))
		})

		It("should assign from the registry count, not past the highest identifier", func() {
			resp, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				ID:       idPtr(7),
				Address:  ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Symbol:   "WETH",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Body.Close()).To(Succeed())

			// One record exists, so the next assigned identifier is 1 even
			// though identifier 7 is taken.
			assigned, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				Address:  ethcommon.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
				Symbol:   "DAI",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeToken(assigned).ID).To(Equal(tokens.TokenID(1)))
		})

		It("should replace the record registered under an identifier", func() {
			original, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				ID:       idPtr(3),
				Address:  ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Symbol:   "WETH",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(original.StatusCode).To(Equal(http.StatusOK))
			Expect(original.Body.Close()).To(Succeed())

			replacement, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				ID:       idPtr(3),
				Address:  ethcommon.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
				Symbol:   "WBTC",
				Decimals: 8,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(replacement.StatusCode).To(Equal(http.StatusOK))
			Expect(replacement.Body.Close()).To(Succeed())

			getResp, err := serverHelper.GetToken(credential, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(getResp.StatusCode).To(Equal(http.StatusOK))

			stored := helpers.DecodeToken(getResp)
			Expect(stored.Symbol).To(Equal("WBTC"))
			Expect(stored.Decimals).To(Equal(uint8(8)))

			listResp, err := serverHelper.ListTokens(credential)
			Expect(err).NotTo(HaveOccurred())
			Expect(listResp.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeTokenList(listResp)).To(HaveLen(1))
		})

		It("should accept the all-zero address as the chain-native asset", func() {
			resp, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
				ID:       idPtr(0),
				Address:  ethcommon.Address{},
				Symbol:   "ETH",
				Decimals: 18,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Body.Close()).To(Succeed())

			getResp, err := serverHelper.GetToken(credential, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(getResp.StatusCode).To(Equal(http.StatusOK))

			stored := helpers.DecodeToken(getResp)
			Expect(stored.Address).To(Equal(ethcommon.Address{}))
			Expect(stored.IsNative()).To(BeTrue())
		})

		It("should reject a request body that is not valid JSON", func() {
			resp, err := serverHelper.RegisterTokenRaw(credential, `{"symbol": "BROKEN"`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp v1.ErrorResponse
			Expect(json.Unmarshal([]byte(helpers.ReadBody(resp)), &errResp)).To(Succeed())
			Expect(errResp.Error).To(HavePrefix("Invalid request body"))
		})

		It("should reject fields outside their numeric ranges", func() {
			overflowedID, err := serverHelper.RegisterTokenRaw(credential,
				`{"id": 70000, "address": "0x0000000000000000000000000000000000000000", "symbol": "BIG", "decimals": 18}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(overflowedID.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(overflowedID.Body.Close()).To(Succeed())

			overflowedDecimals, err := serverHelper.RegisterTokenRaw(credential,
				`{"id": 1, "address": "0x0000000000000000000000000000000000000000", "symbol": "BIG", "decimals": 300}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(overflowedDecimals.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(overflowedDecimals.Body.Close()).To(Succeed())
		})
	})

	Context("Querying Tokens", func() {
		It("should return 404 with an error envelope for an unknown identifier", func() {
			resp, err := serverHelper.GetToken(credential, 42)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(helpers.ReadBody(resp)).To(MatchJSON(`{"error": "token not found"}`))
		})

		It("should reject a non-numeric identifier", func() {
			resp, err := serverHelper.GetTokenPath(credential, "abc")
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(helpers.ReadBody(resp)).To(MatchJSON(
				`{"error": "Invalid token id: must be an integer between 0 and 65535"}`))
		})

		It("should reject an identifier beyond the 16-bit range", func() {
			resp, err := serverHelper.GetTokenPath(credential, "70000")
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(helpers.ReadBody(resp)).To(MatchJSON(
				`{"error": "Invalid token id: must be an integer between 0 and 65535"}`))
		})

		It("should return an empty array when the registry is empty", func() {
			resp, err := serverHelper.ListTokens(credential)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.ReadBody(resp)).To(MatchJSON(`[]`))
		})

		It("should list tokens ordered by identifier", func() {
			for _, reg := range []v1.RegisterTokenRequest{
				{ID: idPtr(5), Address: ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Symbol: "WETH", Decimals: 18},
				{ID: idPtr(1), Address: ethcommon.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Decimals: 18},
				{ID: idPtr(9), Address: ethcommon.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Symbol: "WBTC", Decimals: 8},
			} {
				resp, err := serverHelper.RegisterToken(credential, reg)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Body.Close()).To(Succeed())
			}

			listResp, err := serverHelper.ListTokens(credential)
			Expect(err).NotTo(HaveOccurred())
			Expect(listResp.StatusCode).To(Equal(http.StatusOK))

			list := helpers.DecodeTokenList(listResp)
			Expect(list).To(HaveLen(3))
			Expect(list[0].ID).To(Equal(tokens.TokenID(1)))
			Expect(list[1].ID).To(Equal(tokens.TokenID(5)))
			Expect(list[2].ID).To(Equal(tokens.TokenID(9)))
		})
	})

	Context("Identifier Assignment", func() {
		It("should assign distinct sequential identifiers under the single-worker default", func() {
			const registrations = 8

			var wg sync.WaitGroup
			assigned := make(chan tokens.TokenID, registrations)

			for i := 0; i < registrations; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					resp, err := serverHelper.RegisterToken(credential, v1.RegisterTokenRequest{
						Address:  ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
						Symbol:   "BATCH",
						Decimals: 18,
					})
					Expect(err).NotTo(HaveOccurred())
					Expect(resp.StatusCode).To(Equal(http.StatusOK))

					assigned <- helpers.DecodeToken(resp).ID
				}()
			}

			wg.Wait()
			close(assigned)

			seen := make(map[tokens.TokenID]bool, registrations)
			for id := range assigned {
				seen[id] = true
			}
			for i := 0; i < registrations; i++ {
				Expect(seen).To(HaveKey(tokens.TokenID(i)), "identifiers must cover 0..n-1 with no duplicates")
			}

			listResp, err := serverHelper.ListTokens(credential)
			Expect(err).NotTo(HaveOccurred())
			Expect(listResp.StatusCode).To(Equal(http.StatusOK))
			Expect(helpers.DecodeTokenList(listResp)).To(HaveLen(registrations))
		})
	})
})
