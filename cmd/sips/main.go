/**
 * Copyright 2025-present EzDawg Labs
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// The sips command is a demo client for the SIP API. It plays the role a
// browser wallet would: it signs canonical action messages with
// PRIMARY_WALLET_KEY and submits them over HTTP, so every request goes
// through the same signature verification as production traffic.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ezdawg-sip-go/internal/common"
	"ezdawg-sip-go/internal/models"
	"ezdawg-sip-go/internal/signature"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	serverFlag := flag.String("server", "http://localhost:8080", "Base URL of the SIP API server")
	walletFlag := flag.String("wallet", "", "Wallet to list plans for (default: the wallet PRIMARY_WALLET_KEY controls)")
	createFlag := flag.Bool("create", false, "Create a plan (requires -asset, -index, -amount)")
	assetFlag := flag.String("asset", "", "Asset name for -create (e.g. BTC)")
	indexFlag := flag.Int("index", -1, "Asset index for -create")
	amountFlag := flag.String("amount", "", "Monthly USDC amount for -create")
	pauseFlag := flag.String("pause", "", "Plan id to pause")
	resumeFlag := flag.String("resume", "", "Plan id to resume")
	cancelFlag := flag.String("cancel", "", "Plan id to cancel")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}

	switch {
	case *createFlag:
		runCreate(ctx, client, *serverFlag, *assetFlag, *indexFlag, *amountFlag)
	case *pauseFlag != "":
		runUpdate(ctx, client, *serverFlag, *pauseFlag, "paused")
	case *resumeFlag != "":
		runUpdate(ctx, client, *serverFlag, *resumeFlag, "active")
	case *cancelFlag != "":
		runUpdate(ctx, client, *serverFlag, *cancelFlag, "cancelled")
	default:
		runList(ctx, client, *serverFlag, *walletFlag)
	}
}

func runCreate(ctx context.Context, client *http.Client, server, asset string, index int, amount string) {
	if asset == "" || index < 0 || amount == "" {
		zap.L().Fatal("Flags -asset, -index and -amount are required with -create")
	}
	monthly, err := decimal.NewFromString(amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}

	signer := mustSigner()
	msg, sig, err := signAction(signer, "Create SIP", []signature.Param{
		{Key: "asset", Value: asset},
		{Key: "monthlyAmountUsdc", Value: monthly.String()},
	})
	if err != nil {
		zap.L().Fatal("Signing failed", zap.Error(err))
	}

	idx := index
	var resp models.SipResponse
	err = call(ctx, client, http.MethodPost, server+"/api/sip", models.CreateSipRequest{
		AssetName:         asset,
		AssetIndex:        &idx,
		MonthlyAmountUsdc: monthly,
		Message:           msg,
		Signature:         sig,
	}, &resp)
	if err != nil {
		zap.L().Fatal("Create failed", zap.Error(err))
	}

	fmt.Printf("Created plan %s: %s %s USDC/month (%s)\n",
		resp.Sip.Id, resp.Sip.AssetName, resp.Sip.MonthlyAmountUsdc.String(), resp.Sip.Status)
}

func runUpdate(ctx context.Context, client *http.Client, server, sipId, status string) {
	signer := mustSigner()
	msg, sig, err := signAction(signer, "Update SIP", []signature.Param{
		{Key: "sipId", Value: sipId},
		{Key: "status", Value: status},
	})
	if err != nil {
		zap.L().Fatal("Signing failed", zap.Error(err))
	}

	var resp models.SipResponse
	err = call(ctx, client, http.MethodPatch, server+"/api/sip", models.UpdateSipRequest{
		SipId:     sipId,
		Status:    status,
		Message:   msg,
		Signature: sig,
	}, &resp)
	if err != nil {
		zap.L().Fatal("Update failed", zap.Error(err))
	}

	fmt.Printf("Plan %s is now %s\n", resp.Sip.Id, resp.Sip.Status)
}

func runList(ctx context.Context, client *http.Client, server, wallet string) {
	if wallet == "" {
		wallet = mustSigner().Address()
	}

	var resp models.SipsResponse
	target := server + "/api/sip?walletAddress=" + url.QueryEscape(wallet)
	if err := call(ctx, client, http.MethodGet, target, nil, &resp); err != nil {
		zap.L().Fatal("List failed", zap.Error(err))
	}

	printPlans(wallet, resp.Sips)
}

func printPlans(wallet string, sips []models.Sip) {
	common.PrintHeader("INVESTMENT PLANS", common.DefaultWidth)

	if len(sips) == 0 {
		fmt.Printf("No plans found for %s\n", wallet)
		common.PrintSeparator("=", common.DefaultWidth)
		fmt.Println()
		return
	}

	fmt.Printf("\n┌─ Wallet: %s\n", wallet)
	fmt.Printf("│  Plans: %d\n", len(sips))
	common.PrintBoxSeparator(common.DefaultWidth - 2)
	for i, s := range sips {
		isLast := i == len(sips)-1
		fmt.Printf("%s %-6s (index %d) %12s USDC/month  %-9s created %s\n",
			common.BoxPrefix(isLast), s.AssetName, s.AssetIndex,
			s.MonthlyAmountUsdc.String(), s.Status,
			s.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("%s   id: %s\n", common.BoxDetailPrefix(isLast), s.Id)
	}

	summary := fmt.Sprintf("TOTAL: %d plan(s)", len(sips))
	common.PrintFooter(summary, common.DefaultWidth)
}

func mustSigner() *signature.LocalSigner {
	signer, err := common.LoadPrimarySigner()
	if err != nil {
		zap.L().Fatal("Plan actions are signed; set PRIMARY_WALLET_KEY", zap.Error(err))
	}
	return signer
}

func signAction(signer *signature.LocalSigner, action string, params []signature.Param) (string, string, error) {
	msg := signature.BuildMessage(action, params)
	sig, err := signer.SignAction(msg)
	if err != nil {
		return "", "", fmt.Errorf("unable to sign %s: %w", action, err)
	}
	return msg, signature.EncodeSignature(sig), nil
}

// call sends one JSON request and decodes the response into out. API error
// envelopes are unwrapped into the returned error.
func call(ctx context.Context, client *http.Client, method, target string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("unable to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Code != "" {
			return fmt.Errorf("%s: %s (%s)", resp.Status, apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}
	return nil
}
