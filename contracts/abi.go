package contracts

// CarbonCreditNFTABI is the ABI of the CarbonCreditNFT contract: an
// enumerable ERC-721 with a power token balance, token buy/sell at a fixed
// price and a simple listing marketplace.
const CarbonCreditNFTABI = `[
  {"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"tokenOfOwnerByIndex","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getListingCount","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getListing","stateMutability":"view",
   "inputs":[{"name":"listingId","type":"uint256"}],
   "outputs":[
     {"name":"seller","type":"address"},
     {"name":"tokenId","type":"uint256"},
     {"name":"price","type":"uint256"},
     {"name":"active","type":"bool"}]},
  {"type":"function","name":"mintNFT","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenURI","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable",
   "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"buyTokens","stateMutability":"payable",
   "inputs":[],
   "outputs":[]},
  {"type":"function","name":"sellTokens","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"createListing","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"buyItem","stateMutability":"payable",
   "inputs":[{"name":"listingId","type":"uint256"}],
   "outputs":[]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[
     {"name":"from","type":"address","indexed":true},
     {"name":"to","type":"address","indexed":true},
     {"name":"tokenId","type":"uint256","indexed":true}]}
]`
